// Package session is the facade the presentation layer talks to.
//
// A Session owns one tree.Store and forwards every editor and viewer
// action to it. On top of the store it adds align mode (grid snapping of
// placed and dragged nodes), asynchronous image decoding keyed by node id,
// and whole-document load and save.
//
// A Session is not safe for concurrent use. It is driven by one goroutine,
// normally the UI loop. The only work done elsewhere is image decoding:
// decode goroutines never touch the store, they post completions that the
// owner applies with Pump when Ready fires:
//
//	for {
//	    select {
//	    case ev := <-uiEvents:
//	        handle(sess, ev)
//	    case <-sess.Ready():
//	        sess.Pump()
//	    }
//	}
package session
