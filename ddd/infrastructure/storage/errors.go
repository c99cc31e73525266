package storage

import "errors"

var errNoBucket = errors.New("no destination bucket configured")
