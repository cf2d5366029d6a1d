// Package metrics exposes the Prometheus instruments of the bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/rewards-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Bot commands and callbacks handled, by command and status.",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_command_duration_seconds",
			Help:    "Duration of bot command handling.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_transitions_total",
			Help: "Dialog state machine transitions.",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Errors by kind and severity.",
		},
		[]string{"kind", "severity"},
	)
	ledgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by operation and result.",
		},
		[]string{"operation", "result"},
	)
	pointsMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_moved_total",
			Help: "Points credited or debited by the ledger.",
		},
		[]string{"direction", "source"},
	)
	platformStock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "platform_stock_items",
			Help: "Unclaimed stock items per platform.",
		},
		[]string{"platform"},
	)
	usersTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_users",
			Help: "Registered users.",
		},
	)
	keysTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redemption_keys",
			Help: "Redemption keys by claimed status.",
		},
		[]string{"status"},
	)
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound notifications by result.",
		},
		[]string{"result"},
	)
	activeDialogs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_dialogs",
			Help: "Users currently inside a multi-step dialog.",
		},
	)
	dialogsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dialogs_by_state",
			Help: "Users per dialog state.",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func RecordCommand(command, status string, duration time.Duration) {
	botCommandsTotal.WithLabelValues(label(command), label(status)).Inc()
	commandDurationSeconds.WithLabelValues(label(command)).Observe(duration.Seconds())
}

func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(label(from), label(to)).Inc()
}

func RecordError(kind, severity string) {
	errorsTotal.WithLabelValues(label(kind), label(severity)).Inc()
}

// RecordLedgerOperation counts one engine call. result is "ok" or the
// error kind.
func RecordLedgerOperation(operation, result string) {
	ledgerOperationsTotal.WithLabelValues(label(operation), label(result)).Inc()
}

func RecordPointsCredited(source string, amount int64) {
	if amount > 0 {
		pointsMovedTotal.WithLabelValues("credit", label(source)).Add(float64(amount))
	}
}

func RecordPointsDebited(source string, amount int64) {
	if amount > 0 {
		pointsMovedTotal.WithLabelValues("debit", label(source)).Add(float64(amount))
	}
}

// SetPlatformStock replaces every per-platform stock gauge.
func SetPlatformStock(stock map[string]int64) {
	platformStock.Reset()
	for name, n := range stock {
		platformStock.WithLabelValues(name).Set(float64(n))
	}
}

func SetUsers(n int64) {
	usersTotal.Set(float64(n))
}

func SetKeys(total, claimed int64) {
	keysTotal.WithLabelValues("claimed").Set(float64(claimed))
	keysTotal.WithLabelValues("unclaimed").Set(float64(total - claimed))
}

func RecordNotification(result string) {
	notificationsTotal.WithLabelValues(label(result)).Inc()
}

// StateCollector periodically publishes how many users sit in each dialog
// state.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

func NewStateCollector(fsm state.StateMachine, interval time.Duration) *StateCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{fsm: fsm, interval: interval}
}

// Run blocks until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.Snapshot(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(states))
	active := 0
	for _, st := range states {
		if st == nil || st.CurrentState == "" || st.CurrentState == state.StateIdle {
			continue
		}
		active++
		counts[string(st.CurrentState)]++
	}

	activeDialogs.Set(float64(active))
	dialogsByState.Reset()
	for name, n := range counts {
		dialogsByState.WithLabelValues(name).Set(float64(n))
	}
	return nil
}
