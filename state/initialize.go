package state

import (
	"os"
	"time"

	"go.uber.org/zap"

	"nestcss/common"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		Log:    zap.NewNop(),
		Format: common.OutputFmtCss,
		Out:    os.Stdout,
		start:  time.Now(),
	}
}
