// Package database embed dosyası — migration SQL dosyalarını binary'ye gömer.
//
// Go'nun embed paketi, derleme zamanında dosyaları binary'nin içine gömer.
// Bu sayede deploy edilen binary yanında migration dosyalarına ihtiyaç duymaz.
package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedFiles embed.FS

// EmbeddedMigrations, migration dosyalarını kök dizinde sunan fs.FS.
// embed.FS dosyaları "migrations/001_init.sql" yoluyla taşır — fs.Sub
// ile alt dizine iniyoruz ki New, dosyaları "." altında bulabilsin.
var EmbeddedMigrations = func() fs.FS {
	sub, err := fs.Sub(embeddedFiles, "migrations")
	if err != nil {
		panic(err) // go:embed pattern'i dizinin varlığını garanti eder
	}
	return sub
}()
