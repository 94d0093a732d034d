package realtime

import (
	"encoding/json"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

// Notifier pushes domain events onto conventionally-named rooms. The hosting
// application calls these when books or user state change; only connections
// subscribed to the matching room receive anything.
type Notifier struct {
	broadcaster *Broadcaster
	logger      *logging.Logger
}

// NewNotifier creates a notifier over the given broadcaster.
func NewNotifier(broadcaster *Broadcaster, logger *logging.Logger) *Notifier {
	return &Notifier{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// BookUpdate broadcasts an update for a book to its book:<id> room.
func (n *Notifier) BookUpdate(bookID string, update any) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}

	n.broadcaster.ToRoom(protocol.BookRoom(bookID), protocol.NewBookUpdate(bookID, raw))
	return nil
}

// NewBook broadcasts a newly added book to the new_books room.
func (n *Notifier) NewBook(book any) error {
	raw, err := json.Marshal(book)
	if err != nil {
		return err
	}

	n.broadcaster.ToRoom(protocol.NewBooksRoom, protocol.NewNewBook(raw))
	return nil
}

// UserActivity broadcasts activity for a user to their user:<id> room.
func (n *Notifier) UserActivity(userID string, activity any) error {
	raw, err := json.Marshal(activity)
	if err != nil {
		return err
	}

	n.broadcaster.ToRoom(protocol.UserRoom(userID), protocol.NewUserActivity(userID, raw))
	return nil
}
