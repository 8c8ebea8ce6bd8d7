package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitline/internal/logger"
)

var (
	// ErrInvalidOperation is returned for a completion change on a day other
	// than today, or for any mutation of an archived habit.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidGoal is returned when a goal target is below 1.
	ErrInvalidGoal = errors.New("invalid goal")
	// ErrNotFound is returned for operations on an unknown habit id.
	ErrNotFound = errors.New("habit not found")
	// ErrPersistenceUnavailable wraps failures of the durable store.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrNotificationServiceUnavailable wraps failures of the notification service.
	ErrNotificationServiceUnavailable = errors.New("notification service unavailable")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
