package client

import (
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

// Thin wrappers over join/leave for the conventionally-named rooms the
// server's notifier publishes on.

// SubscribeToBook joins the update room for a book.
func (a *Agent) SubscribeToBook(bookID string) error {
	return a.Join(protocol.BookRoom(bookID))
}

// UnsubscribeFromBook leaves the update room for a book.
func (a *Agent) UnsubscribeFromBook(bookID string) error {
	return a.Leave(protocol.BookRoom(bookID))
}

// SubscribeToNewBooks joins the new-book announcement room.
func (a *Agent) SubscribeToNewBooks() error {
	return a.Join(protocol.NewBooksRoom)
}

// UnsubscribeFromNewBooks leaves the new-book announcement room.
func (a *Agent) UnsubscribeFromNewBooks() error {
	return a.Leave(protocol.NewBooksRoom)
}

// SubscribeToUserActivity joins a user's activity room.
func (a *Agent) SubscribeToUserActivity(userID string) error {
	return a.Join(protocol.UserRoom(userID))
}

// UnsubscribeFromUserActivity leaves a user's activity room.
func (a *Agent) UnsubscribeFromUserActivity(userID string) error {
	return a.Leave(protocol.UserRoom(userID))
}

// OnMessage registers a handler for relayed room messages.
func (a *Agent) OnMessage(fn func(protocol.Message)) Subscription {
	return a.On(protocol.KindMessage, func(f protocol.Frame) {
		if m, ok := f.(protocol.Message); ok {
			fn(m)
		}
	})
}

// OnRoom registers a handler for membership change notices.
func (a *Agent) OnRoom(fn func(protocol.Room)) Subscription {
	return a.On(protocol.KindRoom, func(f protocol.Frame) {
		if r, ok := f.(protocol.Room); ok {
			fn(r)
		}
	})
}

// OnBookUpdate registers a handler for book update broadcasts.
func (a *Agent) OnBookUpdate(fn func(protocol.BookUpdate)) Subscription {
	return a.On(protocol.KindBookUpdate, func(f protocol.Frame) {
		if u, ok := f.(protocol.BookUpdate); ok {
			fn(u)
		}
	})
}

// OnNewBook registers a handler for new-book broadcasts.
func (a *Agent) OnNewBook(fn func(protocol.NewBook)) Subscription {
	return a.On(protocol.KindNewBook, func(f protocol.Frame) {
		if b, ok := f.(protocol.NewBook); ok {
			fn(b)
		}
	})
}

// OnUserActivity registers a handler for user activity broadcasts.
func (a *Agent) OnUserActivity(fn func(protocol.UserActivity)) Subscription {
	return a.On(protocol.KindUserActivity, func(f protocol.Frame) {
		if u, ok := f.(protocol.UserActivity); ok {
			fn(u)
		}
	})
}
