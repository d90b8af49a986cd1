package rag

import "errors"

// Validation failures are rejected before any work begins.
var (
	ErrEmptyDocument = errors.New("document text is empty")
	ErrNoChunks      = errors.New("document produced no chunks")
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrEmptyFileList = errors.New("file list must not be empty")
	ErrEmptyFilename = errors.New("filename must not be empty")
)
