package paymentprovider

// initializeRequest — тело запроса на создание транзакции в Paystack.
// Сумма передаётся в минорных единицах валюты (кобо для NGN).
type initializeRequest struct {
	Amount      int64  `json:"amount"`
	Email       string `json:"email"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
	Currency    string `json:"currency"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"`
		Currency        string `json:"currency"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// InitializeResult — результат создания транзакции: адрес страницы оплаты
// и ссылка для последующей сверки.
type InitializeResult struct {
	AuthorizationURL string
	Reference        string
}

// VerifyResult — итог сверки транзакции со шлюзом.
type VerifyResult struct {
	Status          string
	Reference       string
	Amount          int64
	Currency        string
	GatewayResponse string
}
