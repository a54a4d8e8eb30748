package spin

import "expvar"

var (
	metricSpinSettledTotal     = expvar.NewInt("spin_settled_total")
	metricSpinReplayedTotal    = expvar.NewInt("spin_replayed_total")
	metricSpinAbortedTotal     = expvar.NewInt("spin_aborted_total")
	metricLockContentionTotal  = expvar.NewInt("spin_lock_contention_total")
	metricCreditPendingTotal   = expvar.NewInt("spin_credit_pending_total")
	metricCreditRecoveredTotal = expvar.NewInt("spin_credit_recovered_total")
	metricFreeSpinGrantedTotal = expvar.NewInt("spin_free_spin_granted_total")
)
