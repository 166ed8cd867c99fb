package field

import "github.com/notargets/mpturb/utils"

// ParallelDegree is the number of partitions elementwise kernels are split
// into. Kernels touch only their own cells, so results do not depend on it.
var ParallelDegree = 1

// minPartitionSize keeps tiny fields on one goroutine
const minPartitionSize = 4096

func forEach(n int, kernel func(kMin, kMax int)) {
	np := ParallelDegree
	if np > 1 && n/np < minPartitionSize {
		np = n / minPartitionSize
	}
	if np <= 1 {
		kernel(0, n)
		return
	}
	utils.NewPartitionMap(np, n).Run(kernel)
}
