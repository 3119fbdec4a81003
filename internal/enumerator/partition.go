package enumerator

import "math"

// starRange là một khoảng sao đóng [Low, High] gán cho một worker
type starRange struct {
	Low  int
	High int
}

// partitionLog chia [low, high] thành k sub-range theo thang logarithm:
// vùng sao cao rộng, vùng sao thấp hẹp, để số repo kỳ vọng mỗi sub-range
// xấp xỉ nhau thay vì chia đều theo bề rộng số học.
func partitionLog(low, high, k int) []starRange {
	if k < 1 {
		k = 1
	}
	if low < 1 {
		low = 1
	}
	if high <= low || k == 1 {
		return []starRange{{Low: low, High: high}}
	}

	logLow := math.Log(float64(low))
	logHigh := math.Log(float64(high))

	boundaries := make([]int, 0, k+1)
	boundaries = append(boundaries, low)
	for i := 1; i < k; i++ {
		b := int(math.Exp(logLow + (logHigh-logLow)*float64(i)/float64(k)))
		if b <= boundaries[len(boundaries)-1] {
			b = boundaries[len(boundaries)-1] + 1
		}
		if b >= high {
			break
		}
		boundaries = append(boundaries, b)
	}
	boundaries = append(boundaries, high)

	ranges := make([]starRange, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		rLow := boundaries[i]
		rHigh := boundaries[i+1]
		if i < len(boundaries)-2 {
			rHigh--
		}
		if rHigh < rLow {
			continue
		}
		ranges = append(ranges, starRange{Low: rLow, High: rHigh})
	}
	return ranges
}

// stepForStars trả về step size khởi đầu theo band mật độ: vùng sao càng
// thấp repo càng dày nên step càng nhỏ. Bảng này phản ánh phân bố thực tế
// của GitHub với rất ít repo trên trăm nghìn sao.
func stepForStars(stars int) int {
	switch {
	case stars >= 100000:
		return 50000
	case stars >= 50000:
		return 20000
	case stars >= 20000:
		return 10000
	case stars >= 10000:
		return 5000
	case stars >= 5000:
		return 2000
	case stars >= 2000:
		return 1000
	case stars >= 1000:
		return 500
	case stars >= 500:
		return 200
	default:
		return 50
	}
}

func clampStep(step, minStep, maxStep int) int {
	if step < minStep {
		return minStep
	}
	if maxStep > 0 && step > maxStep {
		return maxStep
	}
	return step
}
