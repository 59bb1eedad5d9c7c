// Package paymentprovider — HTTP-клиент платёжного шлюза Paystack.
// Покрывает два вызова: создание транзакции и её сверку по ссылке.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// Client общается с API Paystack от имени одного секретного ключа.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// New создаёт клиент шлюза. baseURL пустой — используется боевой адрес API.
func New(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

// InitializeTransaction создаёт транзакцию и возвращает адрес страницы
// оплаты. amount — в минорных единицах валюты.
func (c *Client) InitializeTransaction(ctx context.Context, email, reference, currency string, amount int64) (*InitializeResult, error) {
	const op = "paymentprovider.InitializeTransaction"

	body, err := json.Marshal(initializeRequest{
		Amount:    amount,
		Email:     email,
		Reference: reference,
		Currency:  currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	var parsed initializeResponse
	if err = c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !parsed.Status || parsed.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%s: gateway rejected transaction: %s", op, parsed.Message)
	}

	return &InitializeResult{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
	}, nil
}

// VerifyTransaction сверяет транзакцию по ссылке и возвращает её итог.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	const op = "paymentprovider.VerifyTransaction"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	var parsed verifyResponse
	if err = c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !parsed.Status {
		return nil, fmt.Errorf("%s: gateway rejected verification: %s", op, parsed.Message)
	}

	return &VerifyResult{
		Status:          parsed.Data.Status,
		Reference:       parsed.Data.Reference,
		Amount:          parsed.Data.Amount,
		Currency:        parsed.Data.Currency,
		GatewayResponse: parsed.Data.GatewayResponse,
	}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}
