// Package serial turns a store's state into a JSON snapshot that a client
// runtime can rebuild, and back.
//
// The snapshot is plain JSON with four extensions, each an object with a
// single reserved key:
//
//	{"$ref": "/items/0"}         a container already written at that JSON pointer
//	{"$num": "NaN"}              a non-finite number ("NaN", "+Inf", "-Inf")
//	{"$unsupported": "func()"}   a value JSON cannot carry, named by Go type
//
// Object keys of user data that start with "$" are written with one more
// "$" so they never collide with the markers.
package serial
