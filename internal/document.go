package internal

/*
	filter    --> decides whether a raw filesystem event is a real modification.
	registry  --> one subscription + handler per watched path, re-arms expired watches.
	lifecycle --> start/stop of the single listening goroutine.
	watchset  --> immutable list of watched files with a metadata snapshot.

	** Usage
	1 - build a watch set from the resolved paths.
	2 - subscribe every path on a registry.
	3 - run a listening loop under a lifecycle, dispatching backend events to the registry.
*/
