package config

import "os"

// Default endpoints for local development; override via environment.
const (
	defaultLoanListenAddr = ":8080"
	defaultUserListenAddr = ":8081"
	defaultBookListenAddr = ":8082"

	defaultUserServiceURL = "http://localhost:8081"
	defaultBookServiceURL = "http://localhost:8082"
)

// LoanServiceListenAddr returns the loan service listen address (LOAN_SERVICE_ADDR).
func LoanServiceListenAddr() string {
	return envOr("LOAN_SERVICE_ADDR", defaultLoanListenAddr)
}

// UserServiceListenAddr returns the user service listen address (USER_SERVICE_ADDR).
func UserServiceListenAddr() string {
	return envOr("USER_SERVICE_ADDR", defaultUserListenAddr)
}

// BookServiceListenAddr returns the book service listen address (BOOK_SERVICE_ADDR).
func BookServiceListenAddr() string {
	return envOr("BOOK_SERVICE_ADDR", defaultBookListenAddr)
}

// UserServiceBaseURL returns the base URL the loan orchestrator uses to reach
// the User Directory (USER_SERVICE_URL).
func UserServiceBaseURL() string {
	return envOr("USER_SERVICE_URL", defaultUserServiceURL)
}

// BookServiceBaseURL returns the base URL the loan orchestrator uses to reach
// the Catalog (BOOK_SERVICE_URL).
func BookServiceBaseURL() string {
	return envOr("BOOK_SERVICE_URL", defaultBookServiceURL)
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
