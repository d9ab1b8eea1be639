package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures so callers can branch on them with errors.Is
// instead of inspecting messages.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindConfig: missing or invalid seed, passphrase or endpoint. Fatal at startup.
	KindConfig
	// KindDerivation: key derivation failed; no wallet record may be persisted.
	KindDerivation
	// KindDecryption: key blob corrupted, tampered or encrypted under another passphrase.
	KindDecryption
	// KindInsufficientFunds: inputs cannot cover amount plus fee.
	KindInsufficientFunds
	// KindInsufficientFundsAfterFees: nothing left to send once the network-fee reserve is withheld.
	KindInsufficientFundsAfterFees
	// KindNetwork: transient chain or API failure.
	KindNetwork
	// KindBroadcast: the network did not accept the transaction; funds stay in the source wallet.
	KindBroadcast
	// KindInvalidInput: malformed address, amount or asset supplied by a caller.
	KindInvalidInput
	// KindNotFound: the referenced deal or record does not exist.
	KindNotFound
	// KindConflict: the operation collides with one already in flight or already recorded.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config error"
	case KindDerivation:
		return "derivation error"
	case KindDecryption:
		return "decryption error"
	case KindInsufficientFunds:
		return "insufficient funds"
	case KindInsufficientFundsAfterFees:
		return "insufficient funds after fees"
	case KindNetwork:
		return "network error"
	case KindBroadcast:
		return "broadcast error"
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown error"
	}
}

// Code is the stable machine-readable name used in API responses.
func (k Kind) Code() string {
	return strings.ToUpper(strings.ReplaceAll(k.String(), " ", "_"))
}

// Error is the typed error returned by every core operation.
type Error struct {
	Kind  Kind
	Op    string
	Asset Asset
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Asset.Valid() {
		b.WriteString(e.Asset.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels such as ErrDecryption.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil || t.Asset != 0 {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrConfig                     = &Error{Kind: KindConfig}
	ErrDerivation                 = &Error{Kind: KindDerivation}
	ErrDecryption                 = &Error{Kind: KindDecryption}
	ErrInsufficientFunds          = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientFundsAfterFees = &Error{Kind: KindInsufficientFundsAfterFees}
	ErrNetwork                    = &Error{Kind: KindNetwork}
	ErrBroadcast                  = &Error{Kind: KindBroadcast}
	ErrInvalidInput               = &Error{Kind: KindInvalidInput}
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrConflict                   = &Error{Kind: KindConflict}
)

// Wrap attaches a kind and operation to err. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a typed error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithAsset returns err tagged with asset when it is a typed error.
func WithAsset(err error, asset Asset) error {
	if e, ok := err.(*Error); ok && !e.Asset.Valid() {
		cp := *e
		cp.Asset = asset
		return &cp
	}
	return err
}

// KindOf extracts the kind of the outermost typed error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
