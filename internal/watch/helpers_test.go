package watch

import "github.com/fsnotify/fsnotify"

func fsEvent(path, op string) fsnotify.Event {
	ops := map[string]fsnotify.Op{
		"create": fsnotify.Create,
		"write":  fsnotify.Write,
		"remove": fsnotify.Remove,
		"rename": fsnotify.Rename,
	}
	return fsnotify.Event{Name: path, Op: ops[op]}
}
