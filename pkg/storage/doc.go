/*
Package storage persists the documents served by the doc source.

Documents live in a single BoltDB bucket keyed by lower-cased id, each value
a JSON-encoded Document. Ids are matched case-insensitively because they
arrive as DNS labels. The store is written by the doc CLI subcommands and
read by the responder; BoltDB's file lock means the two cannot hold the
database open at the same time.

	store, err := storage.NewBoltStore("./tracething-data/docs.db")
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.PutDocument(&storage.Document{ID: "motd", Body: "hello from the zone"})
*/
package storage
