// Package event provides the publish/subscribe bus that carries editor
// state changes to interested parties.
//
// The coordinator publishes history, render and repair events; the HTTP
// server streams them to browsers over SSE and the terminal editor turns
// them into screen updates.
//
// # Topics
//
// Topics are dot-separated names such as "history.undo" or
// "render.failed". Subscription patterns may use wildcards:
//
//	"*"  matches exactly one segment ("render.*" matches "render.failed")
//	"**" matches zero or more segments ("**" matches everything)
//
// # Delivery
//
// Handlers run synchronously on the publishing goroutine in subscription
// order. A panicking handler is recovered and logged; other handlers still
// run.
//
//	bus := event.NewBus(event.WithLogger(logger))
//	sub, _ := bus.Subscribe("render.*", func(ctx context.Context, e event.Event) {
//	    // ...
//	})
//	defer sub.Cancel()
//
// Channel subscriptions buffer events for a consumer goroutine and drop
// events when the buffer is full, so slow consumers never block publishers.
package event
