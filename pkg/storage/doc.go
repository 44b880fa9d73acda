// Package storage keeps downloaded catalog photos on the local filesystem.
//
// Objects are addressed by slash-separated keys. Writes go through a
// temporary file and a rename so a crashed download never leaves a partial
// photo that a later run would mistake for a complete one.
//
// Usage:
//
//	manager, err := storage.NewManager("./data/photos")
//	if !manager.Exists("products/42/cover.jpg") {
//	    err = manager.Save("products/42/cover.jpg", bytes.NewReader(data))
//	}
package storage
