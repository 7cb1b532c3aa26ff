package oracle

import "errors"

var (
	// ErrProgramNotDeployed is returned when the program keypair or the
	// program account is missing but a build artifact exists.
	ErrProgramNotDeployed = errors.New("program not deployed")

	// ErrProgramNotBuilt is returned when neither the program account nor
	// the build artifact exists.
	ErrProgramNotBuilt = errors.New("program not built")

	// ErrProgramNotExecutable is returned when the program account exists
	// but is not marked executable.
	ErrProgramNotExecutable = errors.New("program is not executable")

	// ErrInsufficientFunds is returned when the payer cannot be funded.
	ErrInsufficientFunds = errors.New("insufficient funds for fees")

	// ErrAnswerAccountMissing is returned when the answer account cannot be
	// found on read back.
	ErrAnswerAccountMissing = errors.New("answer account not found")

	// ErrAnswerAccountInvalid is returned when an existing account at the
	// derived address is not owned by the program or is too small.
	ErrAnswerAccountInvalid = errors.New("answer account invalid")

	// ErrNoPayer is returned when an operation needs the payer before
	// EstablishPayer ran.
	ErrNoPayer = errors.New("payer not established")

	// ErrNoProgram is returned when an operation needs the program id
	// before CheckProgram ran.
	ErrNoProgram = errors.New("program not checked")
)
