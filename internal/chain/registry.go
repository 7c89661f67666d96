package chain

import (
	"context"
	"sort"
	"sync"

	"github.com/mintoria-api/internal/logger"

	"github.com/shopspring/decimal"
)

// Status 单条链的运行状态快照
type Status struct {
	Chain         string          `json:"chain"`
	Network       string          `json:"network"`
	Healthy       bool            `json:"healthy"`
	ServerAddress string          `json:"server_address"`
	Balance       decimal.Decimal `json:"balance"`
	BalanceError  string          `json:"balance_error,omitempty"`
}

// Registry 链适配器注册表，支持运行期禁用单条链
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	disabled map[string]bool
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		disabled: make(map[string]bool),
	}
}

// Register 注册一个链适配器
func (r *Registry) Register(adapter Adapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.ID()] = adapter
}

// SetDisabled 运行期启用/禁用某条链
func (r *Registry) SetDisabled(chain string, disabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[chain] = disabled
	logger.Infow("chain_disabled_flag_changed", "chain", chain, "disabled", disabled)
}

// Get 获取可用的链适配器；未注册或被禁用返回 ErrDisabled，不做任何 I/O
func (r *Registry) Get(chain string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[chain]
	if !ok || r.disabled[chain] {
		return nil, ErrDisabled
	}
	return adapter, nil
}

// Chains 返回已注册链标识（字典序）
func (r *Registry) Chains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chains := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		chains = append(chains, id)
	}
	sort.Strings(chains)
	return chains
}

// Statuses 汇总各链状态；单条链的余额查询失败不影响其他链
func (r *Registry) Statuses(ctx context.Context, withBalance bool) []Status {
	r.mu.RLock()
	snapshot := make([]Adapter, 0, len(r.adapters))
	disabled := make(map[string]bool, len(r.disabled))
	for id, adapter := range r.adapters {
		snapshot = append(snapshot, adapter)
		disabled[id] = r.disabled[id]
	}
	r.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID() < snapshot[j].ID() })

	statuses := make([]Status, 0, len(snapshot))
	for _, adapter := range snapshot {
		status := Status{
			Chain:         adapter.ID(),
			Network:       adapter.Network(),
			Healthy:       adapter.Healthy() && !disabled[adapter.ID()],
			ServerAddress: adapter.ServerAddress(),
			Balance:       decimal.Zero,
		}
		if withBalance && status.Healthy {
			balance, err := adapter.ServerBalance(ctx)
			if err != nil {
				status.BalanceError = err.Error()
				logger.Warnw("chain_balance_query_failed", "chain", adapter.ID(), "error", err)
			} else {
				status.Balance = balance
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
