package builder

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/ninja0404/sol-trader/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetDefault(zap.NewNop())
	logger.SetDefaultL1(zap.NewNop())
	os.Exit(m.Run())
}
