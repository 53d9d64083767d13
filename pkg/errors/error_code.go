package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidTakeProfit    ErrorCode = 102
	ErrCodeInvalidStopLoss      ErrorCode = 103
	ErrCodeInsufficientData     ErrorCode = 104
	ErrCodeInvalidType          ErrorCode = 105
	ErrCodeInvalidPeriod        ErrorCode = 106
	ErrCodeMissingParameter     ErrorCode = 107
	ErrCodeInvalidVersion       ErrorCode = 108
	ErrCodeInvalidDateRange     ErrorCode = 109
	ErrCodeInvalidLeverage      ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeCandlesOutOfOrder     ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeVersionMismatch      ErrorCode = 403

	// Position/ledger errors (500-599)
	ErrCodePositionNotFound  ErrorCode = 500
	ErrCodePositionClosed    ErrorCode = 501
	ErrCodeOversizedExit     ErrorCode = 502
	ErrCodeInsufficientFunds ErrorCode = 503

	// Backtest errors (600-649)
	ErrCodeBacktestConfigError ErrorCode = 600
	ErrCodeBacktestNoStrategy  ErrorCode = 601
	ErrCodeBacktestNoCandles   ErrorCode = 602
	ErrCodeBacktestRunFailed   ErrorCode = 603

	// Walk-forward errors (650-679)
	ErrCodeWalkForwardNoSegments  ErrorCode = 650
	ErrCodeWalkForwardConfigError ErrorCode = 651

	// Monte Carlo errors (680-699)
	ErrCodeMonteCarloConfigError ErrorCode = 680
)
