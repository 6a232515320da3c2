// Package tier provides the rollup schedule model: time units, durations, tiers and schedules.
//
// A schedule is a pipe-separated list of tier definitions. Each tier definition is a
// comma-separated list of key=value attributes:
//
//   - p: period length, e.g. p=15s
//   - d: tier span (t is accepted as an alias), e.g. d=15m
//   - c: period count, e.g. c=60
//   - n: tier name (ignored for level 0, which is always "live")
//
// Whitespace is ignored and matching is case-insensitive. Two of p, d and c are enough; the
// third is derived so that span = period × count holds exactly. When all three are supplied
// they are cross-checked and an inconsistent definition is rejected.
//
// # Example
//
//	schedule, err := tier.ParseSchedule("p=15s,d=15m | p=2m,d=1h,n=hourly")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range schedule.Tiers() {
//	    fmt.Printf("%d %s period=%s span=%s count=%d\n",
//	        t.Level(), t.Name(), t.Period(), t.Span(), t.PeriodCount())
//	}
//
// Output:
//
//	0 live period=15s span=15m count=60
//	1 hourly period=2m span=1h count=30
package tier
