/*
Package chat contains the coordinator core for realtime presence and room messaging.

This file defines the identity registry, which binds connection identifiers to
usernames and enforces username uniqueness among currently connected users.
*/
package chat

// registry maps connection identifiers to usernames and back.
// A username is held by at most one live connection; a departed name becomes
// available again immediately. It is not safe for concurrent use; the
// Coordinator serializes access.
type registry struct {
	// byConn maps a connection identifier to its bound username.
	byConn map[string]string

	// byName maps a username to the connection identifier holding it.
	byName map[string]string

	// order records usernames in bind order for the availableUsers broadcast.
	order []string
}

func newRegistry() *registry {
	return &registry{
		byConn: make(map[string]string),
		byName: make(map[string]string),
	}
}

// register binds username to connID. It fails when another live connection
// already holds the name. Re-registering the same connection replaces its
// previous binding in place.
func (g *registry) register(connID, username string) bool {
	if holder, taken := g.byName[username]; taken && holder != connID {
		return false
	}

	if previous, ok := g.byConn[connID]; ok {
		delete(g.byName, previous)
		for i, name := range g.order {
			if name == previous {
				g.order[i] = username
				break
			}
		}
	} else {
		g.order = append(g.order, username)
	}

	g.byConn[connID] = username
	g.byName[username] = connID
	return true
}

// unregister removes and returns the username bound to connID, if any.
func (g *registry) unregister(connID string) (string, bool) {
	username, ok := g.byConn[connID]
	if !ok {
		return "", false
	}

	delete(g.byConn, connID)
	delete(g.byName, username)
	for i, name := range g.order {
		if name == username {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return username, true
}

// usernameOf returns the username bound to connID, if any.
func (g *registry) usernameOf(connID string) (string, bool) {
	username, ok := g.byConn[connID]
	return username, ok
}

// connOf returns the connection identifier currently holding username, if any.
func (g *registry) connOf(username string) (string, bool) {
	connID, ok := g.byName[username]
	return connID, ok
}

// usernames returns all currently bound usernames in bind order.
func (g *registry) usernames() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}
