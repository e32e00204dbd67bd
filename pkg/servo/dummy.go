package servo

import "fmt"

// Dummy returns a Driver that only prints what it is asked to do, for running without
// the servo board attached.
func Dummy() Driver {
	return &dummyDriver{}
}

type dummyDriver struct{}

func (*dummyDriver) Enable(axis Axis, on bool) error {
	fmt.Printf("DSV: Enable axis=%v on=%v\n", axis, on)
	return nil
}

func (*dummyDriver) SetAngle(axis Axis, degrees float64) error {
	fmt.Printf("DSV: SetAngle axis=%v degrees=%.1f\n", axis, degrees)
	return nil
}

func (*dummyDriver) Close() error {
	fmt.Println("DSV: Close")
	return nil
}
