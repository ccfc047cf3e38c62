package services

import "errors"

// ErrorClass groups failures by what went wrong with the call.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassAuthorization
	ClassPayment
	ClassPhase
	ClassIntegrity
	ClassTiming
	ClassEmptiness
	ClassTransfer
	ClassLookup
	ClassConfiguration
)

type lotteryError struct {
	class ErrorClass
	msg   string
}

func (e *lotteryError) Error() string { return e.msg }

func newError(class ErrorClass, msg string) error {
	return &lotteryError{class: class, msg: msg}
}

// Revert reasons. Messages match the strings the dashboard already knows.
var (
	ErrUnauthorized                 = newError(ClassAuthorization, "Not authorized")
	ErrIncorrectPrice               = newError(ClassPayment, "Incorrect ticket price")
	ErrRoundLocked                  = newError(ClassPhase, "Round is not open")
	ErrCannotBuyDuringActiveLottery = newError(ClassPhase, "Cannot buy tickets during active lottery")
	ErrAlreadyCommitted             = newError(ClassPhase, "Commitment already active")
	ErrNoActiveCommitment           = newError(ClassPhase, "No active commitment")
	ErrStillInProgress              = newError(ClassPhase, "Lottery still in progress")
	ErrSeedMismatch                 = newError(ClassIntegrity, "Seed does not match commitment")
	ErrDeadlineNotReached           = newError(ClassTiming, "Deadline not reached")
	ErrRevealDeadlinePassed         = newError(ClassTiming, "Reveal deadline passed")
	ErrRevealWindowOpen             = newError(ClassTiming, "Reveal window still open")
	ErrNoPlayers                    = newError(ClassEmptiness, "No players")
	ErrTransferFailed               = newError(ClassTransfer, "Transfer failed")
	ErrIndexOutOfRange              = newError(ClassLookup, "Index out of range")
	ErrNoHistory                    = newError(ClassLookup, "No rounds recorded")
	ErrInvalidConfiguration         = newError(ClassConfiguration, "Invalid configuration")
)

// ClassOf reports the class of a lottery error, or ClassUnknown.
func ClassOf(err error) ErrorClass {
	var le *lotteryError
	if errors.As(err, &le) {
		return le.class
	}
	return ClassUnknown
}
