package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/auth"
	"github.com/lpusphere/sphere-server/internal/config"
	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/store/sqlite"
)

type seedUser struct {
	regNo string
	name  string
	role  store.Role
}

type seedClass struct {
	id      string
	name    string
	code    string
	faculty string
	members []string
}

// Sample campus roster. Passwords equal the regNo so every seeded account
// can log in immediately.
var seedUsers = []seedUser{
	{"12214001", "Aarav Sharma", store.RoleStudent},
	{"12214002", "Isha Patel", store.RoleStudent},
	{"12214007", "Rohan Gupta", store.RoleStudent},
	{"12214014", "Priya Singh", store.RoleStudent},
	{"12214018", "Arjun Verma", store.RoleStudent},
	{"F101", "Dr. Rajesh Kumar", store.RoleFaculty},
	{"F102", "Prof. Sneha Agarwal", store.RoleFaculty},
	{"12211633", "Ravi Sharma", store.RoleStudent},
	{"12211634", "Vikram Nair", store.RoleStudent},
	{"12211635", "Aditya Singh", store.RoleStudent},
	{"12211636", "Sneha Kapoor", store.RoleStudent},
	{"12211637", "Priya Iyer", store.RoleStudent},
}

var seedClasses = []seedClass{
	{
		id:      "CSE3A",
		name:    "CSE Year 3 Section A",
		code:    "K22GE-CSE-122",
		faculty: "F101",
		members: []string{"12214001", "12214002", "12214007", "12214014", "12214018"},
	},
	{
		id:      "CSE3B",
		name:    "CSE Year 3 Section B",
		code:    "K22MR-CSE-123",
		faculty: "F101",
		members: []string{"12214001", "12214018"},
	},
	{
		id:      "CSE3C",
		name:    "CSE Year 3 Section C",
		code:    "K22SR-INT-382",
		faculty: "F102",
		members: []string{"12211633", "12211634", "12211635", "12211636", "12211637"},
	},
}

// runSeed populates a fresh database with the sample roster and a few
// starter messages. It fails on a database that already has users.
func runSeed(ctx context.Context, cfg config.Config, logger *zerolog.Logger) error {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	for _, u := range seedUsers {
		hash, err := auth.HashPassword(u.regNo)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.regNo, err)
		}
		if _, err := st.CreateUser(ctx, u.regNo, u.name, hash, u.role); err != nil {
			return fmt.Errorf("create user %s: %w", u.regNo, err)
		}
	}
	logger.Info().Int("count", len(seedUsers)).Msg("created users")

	for _, cl := range seedClasses {
		if _, err := st.CreateClass(ctx, cl.id, cl.name, cl.code, cl.faculty); err != nil {
			return fmt.Errorf("create class %s: %w", cl.id, err)
		}
		for _, regNo := range cl.members {
			if err := st.AddMember(ctx, cl.id, regNo); err != nil {
				return fmt.Errorf("add member %s to %s: %w", regNo, cl.id, err)
			}
		}
	}
	logger.Info().Int("count", len(seedClasses)).Msg("created classes")

	starterMessages := []*store.Message{
		{
			ClassID:     "CSE3C",
			SenderRegNo: "F102",
			SenderName:  "Prof. Sneha Agarwal",
			Text:        "Welcome to CSE3C group! This is your main chat for discussions.",
		},
		{
			ClassID:     "CSE3C",
			SenderRegNo: "12211633",
			SenderName:  "Ravi Sharma",
			Text:        "Thank you, ma'am! Looking forward to working together.",
		},
	}
	for _, msg := range starterMessages {
		if err := st.AppendMessage(ctx, msg); err != nil {
			return fmt.Errorf("append starter message: %w", err)
		}
	}
	logger.Info().Int("count", len(starterMessages)).Msg("created messages")

	logger.Info().
		Str("faculty_login", "F102 / F102").
		Str("student_login", "12211633 / 12211633").
		Msg("database seeded")
	return nil
}
