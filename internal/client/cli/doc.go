// Package cli is the interactive terminal front end of picdrop.
//
// Each view state has its own command set, which stands in for a screen:
//
//	Unauthenticated:       register <user>, login <user>
//	MustChangeCredential:  passwd, logout
//	Active:                contacts, search, select, unselect, delcontact,
//	                       stage, unstage, send, sent, received, open,
//	                       download, mark, unmark, dlselected, link, logout
//
// help and exit work everywhere. Errors are shown next to the command that
// caused them, using services.UserMessage.
package cli
