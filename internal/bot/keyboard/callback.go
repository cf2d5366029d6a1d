package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// Callback data is "action" or "action:payload". Telegram caps it at 64
// bytes, which is why platform names are limited in the ledger.
const (
	callbackSeparator = ":"
	MaxCallbackBytes  = 64
)

var ErrEmptyCallback = errors.New("keyboard: empty callback data")

// EncodeCallback joins action and payload. The action itself may not
// contain the separator.
func EncodeCallback(action, payload string) (string, error) {
	if action == "" || strings.Contains(action, callbackSeparator) {
		return "", fmt.Errorf("keyboard: invalid callback action %q", action)
	}

	data := action
	if payload != "" {
		data += callbackSeparator + payload
	}
	if len(data) > MaxCallbackBytes {
		return "", fmt.Errorf("keyboard: callback %q is %d bytes, limit is %d", action, len(data), MaxCallbackBytes)
	}
	return data, nil
}

// DecodeCallback splits data at the first separator, so payloads may
// contain it. The form feed telebot prepends to unique buttons is ignored.
func DecodeCallback(data string) (action, payload string, err error) {
	data = strings.TrimPrefix(data, "\f")
	if data == "" {
		return "", "", ErrEmptyCallback
	}
	action, payload, _ = strings.Cut(data, callbackSeparator)
	return action, payload, nil
}
