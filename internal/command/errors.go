package command

import "errors"

var (
	ErrEmptyCommand    = errors.New("command is empty")
	ErrCommandNotFound = errors.New("command not found")
	ErrSpawn           = errors.New("failed to start command")
)
