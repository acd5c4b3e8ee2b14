package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// EncodeCallback joins a handler prefix and payload into Telegram callback data,
// e.g. "mode:vehicle".
func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// DecodeCallback splits callback data at the first separator.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}
