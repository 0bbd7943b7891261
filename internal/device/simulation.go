package device

// InSimulation 横切的仿真替换点：处于仿真模式时不执行真实操作，
// 直接返回预设值。用显式组合而不是反射包装，替换点在调用处可见。
//
//	ok, _ := device.InSimulation(h.sim, true, func() (bool, error) { ... })
func InSimulation[T any](simulated bool, fallback T, op func() (T, error)) (T, error) {
	if simulated {
		return fallback, nil
	}
	return op()
}
