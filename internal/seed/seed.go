// Package seed loads principals from a YAML file at startup. Applying the
// same file twice is a no-op: rows whose email already exists are skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/mechanic-shop/internal/logging"
	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/repository"
	"github.com/iliyamo/mechanic-shop/internal/utils"
)

// File is the on-disk layout:
//
//	customers:
//	  - first_name: Sam
//	    last_name: Driver
//	    email: sam@example.com
//	    password: password
//	mechanics:
//	  - name: Alex
//	    email: alex@example.com
//	    password: secret
//	    salary: 52000
type File struct {
	Customers []Customer `yaml:"customers"`
	Mechanics []Mechanic `yaml:"mechanics"`
}

type Customer struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Phone     string `yaml:"phone"`
	Email     string `yaml:"email"`
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
}

type Mechanic struct {
	Name     string  `yaml:"name"`
	Email    string  `yaml:"email"`
	Phone    string  `yaml:"phone"`
	Address  string  `yaml:"address"`
	Salary   float64 `yaml:"salary"`
	Password string  `yaml:"password"`
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

type CustomerCreator interface {
	Create(ctx context.Context, c *model.Customer) error
}

type MechanicCreator interface {
	Create(ctx context.Context, m *model.Mechanic) error
}

// Load reads and validates a seed file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes seed YAML. Every entry needs an email and a password.
func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	for i, c := range f.Customers {
		if c.Email == "" || c.Password == "" {
			return File{}, fmt.Errorf("customers[%d]: email and password are required", i)
		}
	}
	for i, m := range f.Mechanics {
		if m.Email == "" || m.Password == "" {
			return File{}, fmt.Errorf("mechanics[%d]: email and password are required", i)
		}
	}
	return f, nil
}

// Apply inserts every principal in f that does not exist yet.
func Apply(ctx context.Context, f File, customers CustomerCreator, mechanics MechanicCreator, cost int, log logging.Logger) (Result, error) {
	var res Result
	tally := func(kind, email string, err error) error {
		switch {
		case err == nil:
			res.Created++
			log.Info(ctx, "seeded principal", "kind", kind, "email", utils.NormalizeEmail(email))
		case errors.Is(err, repository.ErrEmailExists):
			res.Skipped++
		default:
			return fmt.Errorf("seed %s %s: %w", kind, email, err)
		}
		return nil
	}

	for _, c := range f.Customers {
		hash, err := utils.HashPassword(c.Password, cost)
		if err != nil {
			return res, err
		}
		err = customers.Create(ctx, &model.Customer{
			FirstName: c.FirstName, LastName: c.LastName, Phone: c.Phone,
			Email: c.Email, Address: c.Address, PasswordHash: hash,
		})
		if err := tally("customer", c.Email, err); err != nil {
			return res, err
		}
	}
	for _, m := range f.Mechanics {
		hash, err := utils.HashPassword(m.Password, cost)
		if err != nil {
			return res, err
		}
		err = mechanics.Create(ctx, &model.Mechanic{
			Name: m.Name, Email: m.Email, Phone: m.Phone,
			Address: m.Address, Salary: m.Salary, PasswordHash: hash,
		})
		if err := tally("mechanic", m.Email, err); err != nil {
			return res, err
		}
	}
	return res, nil
}
