package domain

import "errors"

// ErrReportNotFound is returned by repositories when an update or delete
// targets a report that does not exist.
var ErrReportNotFound = errors.New("report not found")
