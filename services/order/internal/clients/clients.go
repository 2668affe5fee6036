// Package clients calls the table and menu services on behalf of the order
// service.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

// ServiceClient is the subset of apt.ServiceClient the clients use.
type ServiceClient interface {
	List(ctx context.Context, resource string) (*apt.SuccessResponse, error)
	Request(ctx context.Context, method, path string, body interface{}) (*apt.SuccessResponse, error)
}

func decodeSuccessResponse(resp *apt.SuccessResponse, dest interface{}) error {
	if resp == nil {
		return errors.New("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dest)
}

func upstream(action string, err error) error {
	return fmt.Errorf("%w: %s: %v", order.ErrUpstream, action, err)
}
