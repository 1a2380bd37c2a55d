package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitioning(t *testing.T) {
	{ // Test PartitionMap
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				maxK := pm.GetBucketDimension(np)
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 10000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Test inverted bucket lookup - find bucket that contains index (efficiently)
		for maxIndex := 10; maxIndex < 1000; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				tryCount, bn, min, max := pm.getBucketWithTryCount(k)
				mmin, mmax := pm.GetBucketRange(bn)
				assert.True(t, k >= min && k < max && min == mmin && max == mmax && tryCount <= 1)
			}
		}
		pm := NewPartitionMap(4, 10)
		bn, _, _ := pm.GetBucket(-1)
		assert.Equal(t, -1, bn)
		bn, _, _ = pm.GetBucket(10)
		assert.Equal(t, -1, bn)
	}
	{ // Test TileMap covers every cell exactly once
		tm := NewTileMap(3, 2, 17, 11)
		assert.Equal(t, 6, tm.NumTiles())
		count := make([]int, 17*11)
		for rank := 0; rank < tm.NumTiles(); rank++ {
			xs, xm, ys, ym := tm.GetTileRange(rank)
			for j := ys; j < ys+ym; j++ {
				for i := xs; i < xs+xm; i++ {
					count[i+17*j]++
					assert.Equal(t, rank, tm.GetTile(i, j))
				}
			}
		}
		for _, c := range count {
			assert.Equal(t, 1, c)
		}
		assert.Equal(t, -1, tm.GetTile(17, 0))
		assert.Equal(t, -1, tm.GetTile(0, -1))
	}
}

func TestMailBox(t *testing.T) {
	type msg struct {
		From, Val int
	}
	var (
		NP = 4
		mb = NewMailBox[msg](NP)
		wg sync.WaitGroup
	)
	for round := 0; round < 3; round++ {
		// Everyone sends its rank to everyone else
		for np := 0; np < NP; np++ {
			wg.Add(1)
			go func(myThread int) {
				defer wg.Done()
				for tgt := 0; tgt < NP; tgt++ {
					if tgt != myThread {
						mb.PostMessage(myThread, tgt, msg{myThread, round})
					}
				}
				assert.NoError(t, mb.DeliverMyMessages(myThread))
			}(np)
		}
		wg.Wait()
		for np := 0; np < NP; np++ {
			wg.Add(1)
			go func(myThread int) {
				defer wg.Done()
				mb.ReceiveMyMessages(myThread)
			}(np)
		}
		wg.Wait()
		for np := 0; np < NP; np++ {
			got := mb.ReceiveMsgQs[np].Cells()
			assert.Equal(t, NP-1, len(got))
			seen := make(map[int]bool)
			for _, m := range got {
				assert.Equal(t, round, m.Val)
				assert.NotEqual(t, np, m.From)
				seen[m.From] = true
			}
			assert.Equal(t, NP-1, len(seen))
			mb.ClearMyMessages(np)
			assert.Equal(t, 0, mb.ReceiveMsgQs[np].Len())
		}
	}
	{ // Out of range target
		mb := NewMailBox[int](2)
		mb.PostMessage(0, 5, 1)
		assert.Error(t, mb.DeliverMyMessages(0))
	}
}

func TestDynBuffer(t *testing.T) {
	db := NewDynBuffer[float64](2)
	for i := 0; i < 5; i++ {
		db.Add(float64(i))
	}
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, db.Cells())
	db.Reset()
	assert.Equal(t, 0, db.Len())
	db.Add(7)
	assert.Equal(t, []float64{7}, db.Cells())
}
