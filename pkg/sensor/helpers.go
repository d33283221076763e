package sensor

import (
	"time"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/lis2mdl"
)

// optsFromConfig maps the daemon configuration onto driver bring-up options.
func optsFromConfig(cfg config.Config) lis2mdl.Opts {
	return lis2mdl.Opts{
		DataRate:           lis2mdl.DataRateForHz(cfg.DataRateHz),
		Offset:             [3]int16{cfg.Offset.X, cfg.Offset.Y, cfg.Offset.Z},
		OffsetCancellation: cfg.OffsetCancellation,
		TempCompensation:   cfg.TempCompensation,
		BootWait:           time.Duration(cfg.BootDelayMs) * time.Millisecond,
		ResetTimeout:       time.Duration(cfg.ResetTimeoutMs) * time.Millisecond,
	}
}
