package domain

import "errors"

// ErrEmptyTitle is returned by NoteStore.CreateNote when the title is empty
// or whitespace-only after trimming.
var ErrEmptyTitle = errors.New("note title must not be empty")
