package export

import "errors"

// ErrRender is returned when a chart or workbook cannot be produced.
var ErrRender = errors.New("export render failed")
