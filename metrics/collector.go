package metrics

// Collector records metrics with the environment label pre-filled.
type Collector struct {
	environment string
}

// NewCollector creates a new Collector for the given environment.
func NewCollector(environment string) *Collector {
	return &Collector{environment: environment}
}

// Environment returns the environment label value.
func (c *Collector) Environment() string {
	return c.environment
}

// IncStep increments the steps counter.
func (c *Collector) IncStep(database, direction, outcome string) {
	StepsTotal.WithLabelValues(c.environment, database, direction, outcome).Inc()
}

// ObserveStepDuration records a step duration observation.
func (c *Collector) ObserveStepDuration(direction string, seconds float64) {
	StepDuration.WithLabelValues(c.environment, direction).Observe(seconds)
}

// IncTargetRun increments the target runs counter.
func (c *Collector) IncTargetRun(direction, outcome string) {
	TargetRunsTotal.WithLabelValues(c.environment, direction, outcome).Inc()
}

// IncLedgerDesync increments the ledger desync counter.
func (c *Collector) IncLedgerDesync(database string) {
	LedgerDesyncTotal.WithLabelValues(c.environment, database).Inc()
}

// SetPending sets the pending migrations gauge.
func (c *Collector) SetPending(database string, count int) {
	PendingMigrations.WithLabelValues(c.environment, database).Set(float64(count))
}

// ObserveRunDuration records an operation duration observation.
func (c *Collector) ObserveRunDuration(direction string, seconds float64) {
	RunDuration.WithLabelValues(c.environment, direction).Observe(seconds)
}
