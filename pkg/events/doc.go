/*
Package events is an in-memory broker for responder activity.

The router publishes an event whenever a query allocates a slot, when that
allocation evicts an older result set, and when a content fetch fails.
The admin listener streams them to clients of GET /events.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	for ev := range sub {
		fmt.Println(ev.Type, ev.Metadata["slot"])
	}

Delivery is best effort. Publish never blocks the query path; an event is
dropped when the broker queue (100) or a subscriber buffer (50) is full.
Nothing is persisted and there is no replay for late subscribers.
*/
package events
