// Package models — workspace (çalışma alanı) modelleri.
//
// Workspace, kullanıcıların ve kanalların üst container'ıdır.
// Bir kullanıcı birden fazla workspace'e üye olabilir; presence
// event'leri kullanıcının TÜM workspace'lerine fan-out edilir.
package models

import "time"

// Workspace, bir çalışma alanını temsil eder.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IconURL   *string   `json:"icon_url"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
