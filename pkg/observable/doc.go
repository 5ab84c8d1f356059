// Package observable implements a replay-latest broadcast value.
//
// A Latest holds the most recently published value and fans it out to any
// number of subscribers. Each subscriber has a single-slot mailbox: a slow
// subscriber never blocks the publisher, it simply observes the newest value
// when it next reads. A subscriber that joins late receives the current
// value immediately.
//
//	states := observable.NewLatest[string]()
//	states.Publish("starting")
//
//	sub := states.Subscribe()
//	defer sub.Close()
//	fmt.Println(<-sub.C()) // "starting"
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package observable
