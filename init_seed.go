// Package main — development seed.
//
// seedDemoData, boş bir development DB'sine oturup denemeye yetecek
// kadar veri ekler: bir demo kullanıcı, bir workspace ve iki kanal.
// DATABASE_SEED_DEMO=true ile açılır; production'da KAPALI tutulmalı.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/oda/database"
	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/repository"
)

const (
	seedUsername = "demo"
	seedPassword = "demo1234"
)

// seedDemoData, demo verisini tek transaction içinde oluşturur —
// yarım kalmış seed (kullanıcı var ama workspace yok) mümkün değildir.
// Demo kullanıcı zaten varsa seed daha önce çalışmıştır, atlanır.
func seedDemoData(ctx context.Context, db *sql.DB) error {
	if _, err := repository.NewSQLiteUserRepo(db).GetByUsername(ctx, seedUsername); err == nil {
		log.Println("[seed] demo data already present, skipping")
		return nil
	} else if !errors.Is(err, pkg.ErrNotFound) {
		return fmt.Errorf("seed precheck failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), 12)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	return database.WithTx(ctx, db, func(tx *sql.Tx) error {
		users := repository.NewSQLiteUserRepo(tx)
		workspaces := repository.NewSQLiteWorkspaceRepo(tx)
		channels := repository.NewSQLiteChannelRepo(tx)

		displayName := "Demo Kullanıcı"
		user := &models.User{
			Username:     seedUsername,
			DisplayName:  &displayName,
			PasswordHash: string(hash),
			Status:       models.StatusOffline,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}

		workspace := &models.Workspace{
			Name:    "Oda Demo",
			OwnerID: user.ID,
		}
		if err := workspaces.Create(ctx, workspace); err != nil {
			return err
		}
		if err := workspaces.AddMember(ctx, workspace.ID, user.ID); err != nil {
			return err
		}

		for i, name := range []string{"genel", "toplantı"} {
			channel := &models.Channel{
				WorkspaceID: workspace.ID,
				Name:        name,
				Position:    i,
			}
			if err := channels.Create(ctx, channel); err != nil {
				return err
			}
		}

		log.Printf("[seed] demo data created (user=%s workspace=%s)", user.Username, workspace.ID)
		return nil
	})
}
