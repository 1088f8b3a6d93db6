package wallet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xcro-market/backend/internal/models"
	"github.com/xssnick/tonutils-go/address"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidAddress      = errors.New("invalid wallet address")
)

var (
	ethAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	btcAddressRe = regexp.MustCompile(`^(bc1[0-9a-z]{11,71}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})$`)
)

// NormalizeCurrency upper-cases the code and defaults to ETH.
func NormalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return models.CurrencyETH
	}
	return c
}

// ValidateAddress checks that addr is a well-formed payout address for currency
// and returns it in canonical form.
func ValidateAddress(currency, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	switch NormalizeCurrency(currency) {
	case models.CurrencyETH:
		if !ethAddressRe.MatchString(addr) {
			return "", fmt.Errorf("%w: expected 0x-prefixed 20-byte hex", ErrInvalidAddress)
		}
		return addr, nil
	case models.CurrencyTON:
		parsed, err := parseTON(addr)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		return parsed.String(), nil
	case models.CurrencyBTC:
		if !btcAddressRe.MatchString(addr) {
			return "", fmt.Errorf("%w: not a bitcoin address", ErrInvalidAddress)
		}
		return addr, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
}

// parseTON accepts both user-friendly (EQ.../UQ...) and raw (0:<hex>) forms.
func parseTON(addr string) (*address.Address, error) {
	if strings.Contains(addr, ":") {
		return address.ParseRawAddr(addr)
	}
	return address.ParseAddr(addr)
}
