package errors

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	// ServiceIllegalReference reports a deposit reference failing the Luhn check.
	ServiceIllegalReference struct {
		Msg string
	}
	ServiceIllegalHandSerial struct {
		Msg string
	}
	ServiceIllegalAmount struct {
		Msg string
	}
	ServiceNotEnoughFunds struct {
		Msg string
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ServiceIllegalReference) Error() string {
	return e.Msg
}

func (e *ServiceIllegalHandSerial) Error() string {
	return e.Msg
}

func (e *ServiceIllegalAmount) Error() string {
	return e.Msg
}

func (e *ServiceNotEnoughFunds) Error() string {
	return e.Msg
}
