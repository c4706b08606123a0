package seasonsim

import "time"

// HTTP status code constants.
const (
	StatusOK                  = 200
	StatusAccepted            = 202
	StatusConflict            = 409
	StatusUnprocessableEntity = 422
)

// Runner configuration constants.
const (
	PollInterval         = 50 * time.Millisecond
	PeriodTimeout        = 30 * time.Second
	PercentageMultiplier = 100
)

// Price generation bounds; eleven athletes at the ceiling stay under the
// default budget.
const (
	priceFloorTenths = 50
	priceSpanTenths  = 31
)
