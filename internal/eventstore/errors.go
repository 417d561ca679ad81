package eventstore

import (
	"git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.HistoryError("could not open build history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.HistoryError("failed to initialize build history schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.HistoryError("failed to append build event").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.HistoryError("failed to query build events").Build()

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.HistoryError("build history store is closed").Build()
)
