package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"driftmail/backend/internal/storage"
)

// Checker 聚合存储与可选依赖的健康检查。
type Checker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// Dependency 可选外部依赖（如 Redis 限流器）。
type Dependency interface {
	Health() error
}

// NewChecker 创建健康检查器。
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	c.health.AddLivenessCheck("store", func() error {
		return c.store.Health()
	})

	return c
}

// AddDependency 注册额外依赖的就绪检查。
func (c *Checker) AddDependency(name string, dep Dependency) {
	c.health.AddReadinessCheck(name, func() error {
		return dep.Health()
	})
}

// LiveEndpoint 存活检查处理器。
func (c *Checker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	c.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查处理器。
func (c *Checker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	c.health.ReadyEndpoint(w, r)
}
