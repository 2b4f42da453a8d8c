package expr

import "time"

// call dispatches a function value. Arguments are already evaluated.
func (vm *machine) call(fn uint32, arg1, arg2 int32, depth int) (int32, error) {
	switch fn {
	case FuncNone:
		return 0, nil
	case FuncRandom:
		if vm.env == nil {
			return 0, nil
		}
		lo, hi := arg1, arg2
		if lo > hi {
			lo, hi = hi, lo
		}
		return vm.env.RandomInt(lo, hi), nil
	case FuncMonth:
		return int32(vm.now().Month()), nil
	case FuncDay:
		return int32(vm.now().Day()), nil
	case FuncTimeOfDay:
		now := vm.now()
		return int32(now.Hour()*60 + now.Minute()), nil
	case FuncRegion:
		if vm.env == nil {
			return 0, nil
		}
		return vm.env.RegionID(), nil
	case FuncClockHour:
		h := vm.now().Hour() % 12
		if h == 0 {
			h = 12
		}
		return int32(h), nil
	case FuncDifficultyID:
		if vm.m == nil {
			return 0, nil
		}
		return int32(vm.m.DifficultyID()), nil
	case FuncHolidayStart:
		if vm.env == nil {
			return 0, nil
		}
		return vm.env.HolidayStart(uint32(arg1)), nil
	case FuncHolidayLeft:
		if vm.env == nil {
			return 0, nil
		}
		return vm.env.HolidayLeft(uint32(arg1)), nil
	case FuncHolidayActive:
		if vm.env != nil && vm.env.HolidayActive(uint32(arg1)) {
			return 1, nil
		}
		return 0, nil
	case FuncTimerCurrentTime:
		return int32(vm.now().Unix()), nil
	case FuncWeekNumber:
		_, week := vm.now().ISOWeek()
		return int32(week), nil
	case FuncExpression:
		if vm.programs == nil {
			return 0, nil
		}
		program, ok := vm.programs.Program(uint32(arg1))
		if !ok {
			return 0, nil
		}
		ok, err := vm.run(program, depth+1)
		if err != nil {
			return 0, err
		}
		if ok {
			return 1, nil
		}
		return 0, nil
	case FuncSeededRandom:
		// Seeded random has no seed source and evaluates to 0.
		return 0, nil
	default:
		return 0, ErrUnknownFunction
	}
}

func (vm *machine) now() time.Time {
	if vm.env == nil {
		return time.Unix(0, 0).UTC()
	}
	return vm.env.Now()
}
