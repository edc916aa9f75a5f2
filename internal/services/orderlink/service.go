// Package orderlink writes the serial of a freshly provisioned unit back onto
// its e-commerce order in Odoo. Linking is strictly best-effort: failures are
// reported to the caller for logging but must never fail provisioning.
package orderlink

import (
	"context"
	"fmt"
	"log"

	"github.com/kolo/xmlrpc"
	"github.com/sventech/prodline/internal/config"
	"github.com/sventech/prodline/internal/models"
)

// Service is an Odoo XML-RPC order-link client
type Service struct {
	url      string
	database string
	username string
	password string
	uid      int
}

// NewService creates an unauthenticated client; Authenticate is called lazily
func NewService(cfg config.OdooConfig) *Service {
	return &Service{
		url:      cfg.URL,
		database: cfg.Database,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Authenticate resolves the Odoo user ID for subsequent execute_kw calls
func (s *Service) Authenticate() error {
	client, err := xmlrpc.NewClient(fmt.Sprintf("%s/xmlrpc/2/common", s.url), nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{s.database, s.username, s.password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if uid == 0 {
		return fmt.Errorf("authentication rejected for %s", s.username)
	}

	s.uid = uid
	return nil
}

// LinkOrderToUnit posts the unit's serial number onto the sale order as a
// tracked message. Called after the unit record is durable; errors are
// returned so the orchestrator can log them, nothing more.
func (s *Service) LinkOrderToUnit(_ context.Context, orderID int64, unit *models.Unit) error {
	if s.uid == 0 {
		if err := s.Authenticate(); err != nil {
			return err
		}
	}

	client, err := xmlrpc.NewClient(fmt.Sprintf("%s/xmlrpc/2/object", s.url), nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	body := fmt.Sprintf("Manufactured unit %s (id %s) assigned to this order", unit.SerialNumber, unit.ID)
	args := []interface{}{
		s.database,
		s.uid,
		s.password,
		"sale.order",
		"message_post",
		[]interface{}{[]int64{orderID}},
		map[string]interface{}{
			"body": body,
		},
	}

	var result interface{}
	if err := client.Call("execute_kw", args, &result); err != nil {
		return fmt.Errorf("failed to post unit link on order %d: %w", orderID, err)
	}

	log.Printf("🔗 Linked unit %s to order %d", unit.SerialNumber, orderID)
	return nil
}
