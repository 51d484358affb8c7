package metric

import "errors"

var (
	ErrProjectHistoryNotFound = errors.New("project history not found")
)
