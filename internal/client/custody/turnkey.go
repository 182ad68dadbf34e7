package custody

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	client "github.com/tipcast/tipcast-api/internal/client/http"
)

const turnkeyBaseURL = "https://api.turnkey.com"

// TurnkeyClient drives the Turnkey wallet API. Every request body is
// stamped: signed with the org's P-256 API key and attached as the
// X-Stamp header.
type TurnkeyClient struct {
	http           *client.Client
	organizationID string
	apiPublicKey   string
	apiPrivateKey  *ecdsa.PrivateKey
}

// NewTurnkeyClient creates a Turnkey custody client. apiPrivateKeyHex is
// the hex-encoded DER P-256 private key paired with apiPublicKey.
func NewTurnkeyClient(organizationID, apiPublicKey, apiPrivateKeyHex string, options ...client.ClientOption) (*TurnkeyClient, error) {
	der, err := hex.DecodeString(apiPrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("malformed turnkey api key: %w", err)
	}
	key, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse turnkey api key: %w", err)
	}

	opts := append([]client.ClientOption{client.WithBaseURL(turnkeyBaseURL)}, options...)
	return &TurnkeyClient{
		http:           client.NewClient(opts...),
		organizationID: organizationID,
		apiPublicKey:   apiPublicKey,
		apiPrivateKey:  key,
	}, nil
}

var _ Provider = (*TurnkeyClient)(nil)

type turnkeyStamp struct {
	PublicKey string `json:"publicKey"`
	Scheme    string `json:"scheme"`
	Signature string `json:"signature"`
}

// stamp signs the serialized request body and encodes the stamp header.
func (t *TurnkeyClient) stamp(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, t.apiPrivateKey, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to stamp turnkey request: %w", err)
	}
	stamp, err := json.Marshal(turnkeyStamp{
		PublicKey: t.apiPublicKey,
		Scheme:    "SIGNATURE_SCHEME_TK_API_P256",
		Signature: hex.EncodeToString(sig),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(stamp), nil
}

func (t *TurnkeyClient) submit(ctx context.Context, path string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal turnkey request: %w", err)
	}
	stamp, err := t.stamp(body)
	if err != nil {
		return err
	}

	resp, err := t.http.Post(ctx, path, json.RawMessage(body), client.WithHeader("X-Stamp", stamp))
	if err != nil {
		return fmt.Errorf("turnkey request failed: %w", err)
	}
	return t.http.DecodeJSON(resp, result)
}

type turnkeyActivityRequest struct {
	Type           string      `json:"type"`
	TimestampMs    string      `json:"timestampMs"`
	OrganizationID string      `json:"organizationId"`
	Parameters     interface{} `json:"parameters"`
}

func (t *TurnkeyClient) activity(activityType string, parameters interface{}) turnkeyActivityRequest {
	return turnkeyActivityRequest{
		Type:           activityType,
		TimestampMs:    fmt.Sprintf("%d", time.Now().UnixMilli()),
		OrganizationID: t.organizationID,
		Parameters:     parameters,
	}
}

type turnkeyWalletAccount struct {
	Curve         string `json:"curve"`
	PathFormat    string `json:"pathFormat"`
	Path          string `json:"path"`
	AddressFormat string `json:"addressFormat"`
}

type turnkeyCreateParams struct {
	WalletName string                 `json:"walletName"`
	Accounts   []turnkeyWalletAccount `json:"accounts"`
}

type turnkeyCreateResponse struct {
	Activity struct {
		Result struct {
			CreateWalletResult struct {
				WalletID  string   `json:"walletId"`
				Addresses []string `json:"addresses"`
			} `json:"createWalletResult"`
		} `json:"result"`
	} `json:"activity"`
}

// CreateWallet provisions a new Turnkey wallet with one ethereum account.
func (t *TurnkeyClient) CreateWallet(ctx context.Context) (*Wallet, error) {
	params := turnkeyCreateParams{
		WalletName: fmt.Sprintf("tipcast-signer-%d", time.Now().UnixMilli()),
		Accounts: []turnkeyWalletAccount{{
			Curve:         "CURVE_SECP256K1",
			PathFormat:    "PATH_FORMAT_BIP32",
			Path:          "m/44'/60'/0'/0/0",
			AddressFormat: "ADDRESS_FORMAT_ETHEREUM",
		}},
	}

	var resp turnkeyCreateResponse
	if err := t.submit(ctx, "/public/v1/submit/create_wallet",
		t.activity("ACTIVITY_TYPE_CREATE_WALLET", params), &resp); err != nil {
		return nil, err
	}

	result := resp.Activity.Result.CreateWalletResult
	if result.WalletID == "" || len(result.Addresses) == 0 {
		return nil, fmt.Errorf("turnkey returned no usable wallet identity")
	}
	return &Wallet{ID: result.WalletID, Address: result.Addresses[0]}, nil
}

type turnkeySignParams struct {
	SignWith     string `json:"signWith"`
	Payload      string `json:"payload"`
	Encoding     string `json:"encoding"`
	HashFunction string `json:"hashFunction"`
}

type turnkeySignResponse struct {
	Activity struct {
		Result struct {
			SignRawPayloadResult struct {
				R string `json:"r"`
				S string `json:"s"`
				V string `json:"v"`
			} `json:"signRawPayloadResult"`
		} `json:"result"`
	} `json:"activity"`
}

// SignMessage signs the already-hashed hex payload with the account at
// address. The result is the raw r/s pair plus the 00/01 recovery
// indicator; assembling the serialized signature is the caller's job.
func (t *TurnkeyClient) SignMessage(ctx context.Context, _, address, message string) (*SignResult, error) {
	params := turnkeySignParams{
		SignWith:     address,
		Payload:      message,
		Encoding:     "PAYLOAD_ENCODING_HEXADECIMAL",
		HashFunction: "HASH_FUNCTION_NO_OP",
	}

	var resp turnkeySignResponse
	if err := t.submit(ctx, "/public/v1/submit/sign_raw_payload",
		t.activity("ACTIVITY_TYPE_SIGN_RAW_PAYLOAD_V2", params), &resp); err != nil {
		return nil, err
	}

	result := resp.Activity.Result.SignRawPayloadResult
	if result.R == "" || result.S == "" {
		return nil, fmt.Errorf("turnkey returned no signature")
	}
	return &SignResult{R: result.R, S: result.S, V: result.V}, nil
}
