package navigation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
)

// LogNavigator records navigation requests instead of performing them. In the
// gateway deployment actual redirects are issued by the HTTP handlers; the
// manager's navigation side effects are observed through logs and LastTarget.
type LogNavigator struct {
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

// NewLogNavigator constructs a LogNavigator.
func NewLogNavigator(log *zap.Logger) *LogNavigator {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNavigator{logger: log}
}

// Navigate records the target URL.
func (n *LogNavigator) Navigate(targetURL string) error {
	n.mu.Lock()
	n.last = targetURL
	n.mu.Unlock()

	n.logger.Info("navigation requested", zap.String("target", targetURL))
	return nil
}

// LastTarget returns the most recently requested target URL.
func (n *LogNavigator) LastTarget() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

var _ port.Navigator = (*LogNavigator)(nil)
