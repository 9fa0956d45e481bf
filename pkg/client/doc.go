/*
Package client reads a running responder through its admin listener.

It backs the status and watch commands:

	c := client.NewClient("127.0.0.1:9153")
	defer c.Close()

	slots, err := c.Slots()
	health, err := c.Health()

	err = c.Watch(ctx, func(ev *events.Event) error {
		fmt.Println(ev.Type, ev.Message)
		return nil
	})

The admin listener is read-only, so the client has no way to change state.
*/
package client
