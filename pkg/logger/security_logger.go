package logger

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"indexnow-go/pkg/utils"
)

// SecurityLogger masks credentials before anything reaches the log sink
type SecurityLogger struct {
	*Logger
}

// NewSecurityLogger creates a new security-aware logger on top of base
func NewSecurityLogger(base *Logger) *SecurityLogger {
	if base == nil {
		base = GetLogger()
	}
	return &SecurityLogger{Logger: base}
}

var credentialAssignment = regexp.MustCompile(`(?i)(key|token|secret)[=:]\s*[a-zA-Z0-9]+`)

// MaskAPIKey replaces a submission key with a short fingerprint that is stable across runs
func (sl *SecurityLogger) MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	return "api-key#" + sl.generateHash(key)[:6]
}

// MaskKeyLocation keeps the host of a key-location URL and hides the key-bearing path
func (sl *SecurityLogger) MaskKeyLocation(keyLocation string) string {
	if keyLocation == "" {
		return ""
	}

	parsedURL, err := url.Parse(keyLocation)
	if err != nil || parsedURL.Host == "" {
		return "key-location#" + sl.generateHash(keyLocation)[:6]
	}
	return fmt.Sprintf("%s://%s/%s.txt", parsedURL.Scheme, parsedURL.Host, utils.RedactedMarker)
}

// MaskSensitiveData masks credential-bearing values in a field map
func (sl *SecurityLogger) MaskSensitiveData(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))

	for key, value := range data {
		lowerKey := strings.ToLower(key)
		str, isString := value.(string)

		switch {
		case isString && strings.Contains(lowerKey, "key_location"):
			masked[key] = sl.MaskKeyLocation(str)
		case isString && (lowerKey == "key" || strings.Contains(lowerKey, "api_key") ||
			strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "secret")):
			masked[key] = sl.MaskAPIKey(str)
		default:
			masked[key] = utils.RedactValue(value)
		}
	}

	return masked
}

// MaskLogMessage masks sensitive information in free-form log messages
func (sl *SecurityLogger) MaskLogMessage(message string) string {
	masked := credentialAssignment.ReplaceAllString(message, "${1}=***")
	return utils.RedactAPIKey(masked)
}

// SafeInfo logs info with automatic sensitive data masking
func (sl *SecurityLogger) SafeInfo(msg string, fields map[string]interface{}) {
	sl.withMasked(fields).Info(sl.MaskLogMessage(msg))
}

// SafeWarn logs warning with automatic sensitive data masking
func (sl *SecurityLogger) SafeWarn(msg string, fields map[string]interface{}) {
	sl.withMasked(fields).Warn(sl.MaskLogMessage(msg))
}

// SafeError logs error with automatic sensitive data masking
func (sl *SecurityLogger) SafeError(msg string, err error, fields map[string]interface{}) {
	maskedFields := sl.MaskSensitiveData(fields)
	if err != nil {
		maskedFields["error"] = sl.MaskLogMessage(err.Error())
	}
	sl.Logger.WithFields(maskedFields).Error(sl.MaskLogMessage(msg))
}

// SafeDebug logs debug with automatic sensitive data masking
func (sl *SecurityLogger) SafeDebug(msg string, fields map[string]interface{}) {
	sl.withMasked(fields).Debug(sl.MaskLogMessage(msg))
}

func (sl *SecurityLogger) withMasked(fields map[string]interface{}) *Logger {
	if len(fields) == 0 {
		return sl.Logger
	}
	return sl.Logger.WithFields(sl.MaskSensitiveData(fields))
}

func (sl *SecurityLogger) generateHash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:8])
}

// GetSecurityLogger returns a security logger over the current global logger
func GetSecurityLogger() *SecurityLogger {
	return NewSecurityLogger(GetLogger())
}
