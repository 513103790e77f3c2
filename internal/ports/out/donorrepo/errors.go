package donorrepo

import "errors"

var ErrNotFound = errors.New("constituent not found")
