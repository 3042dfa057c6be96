package settings

import "github.com/m04kA/SMC-CourtReservationService/pkg/dbmetrics"

type DBExecutor = dbmetrics.DBExecutor
