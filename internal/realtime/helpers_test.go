package realtime

import (
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Format: "text"})
}

func register(r *Registry, h Handle) string {
	id := NewConnID()
	r.Register(id, h)
	return id
}
