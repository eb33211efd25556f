package environment

import "context"

// TempHumFunc turns a function into a temperature and humidity sensor. It
// stands in for hardware in tests:
//
//	s := TempHumFunc(func(ctx context.Context) (float32, float32, error) {
//		return 22.5, 45, nil
//	})
type TempHumFunc func(ctx context.Context) (float32, float32, error)

func (f TempHumFunc) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	return f(ctx)
}
