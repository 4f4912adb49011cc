package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeapInfo_RegionalCollector(t *testing.T) {
	output := "garbage-first heap   total 2097152K, used 2034889K [0x00000000c0000000, 0x0000000100000000)\n" +
		" region size 1024K, 436 young (446464K), 4 survivors (4096K)\n" +
		" Metaspace       used 422035K, committed 427968K, reserved 1441792K\n" +
		"  class space    used 56631K, committed 59200K, reserved 1048576K\n"

	h, err := ParseHeapInfo(output)
	require.NoError(t, err)

	assert.Equal(t, uint64(2097152), h.TotalKiB)
	assert.Equal(t, uint64(2034889), h.UsedKiB)
	assert.True(t, h.HasRegions)
	assert.Equal(t, uint64(1024), h.RegionSizeKiB)
	assert.Equal(t, uint64(436), h.YoungRegions)
	assert.Equal(t, uint64(4), h.SurvivorRegions)
	assert.Equal(t, uint64(422035), h.MetaspaceUsedKiB)
	assert.Equal(t, uint64(427968), h.MetaspaceCommittedKiB)
	assert.Equal(t, uint64(1441792), h.MetaspaceReservedKiB)
	assert.True(t, h.HasClassSpace)
	assert.Equal(t, uint64(56631), h.ClassSpaceUsedKiB)
	assert.Equal(t, uint64(59200), h.ClassSpaceCommittedKiB)
}

func TestParseHeapInfo_GenerationalNoRegions(t *testing.T) {
	output := "PSYoungGen      total 76288K, used 65536K [0x00000000eab00000, 0x0000000100000000)\n" +
		" Metaspace       used 10000K, committed 10240K, reserved 1056768K\n"

	h, err := ParseHeapInfo(output)
	require.NoError(t, err)
	assert.False(t, h.HasRegions)
	assert.False(t, h.HasClassSpace)
	assert.Equal(t, uint64(76288), h.TotalKiB)
}

func TestParseHeapInfo_MissingMetaspaceErrors(t *testing.T) {
	output := "garbage-first heap   total 2097152K, used 2034889K [a, b)\n"
	_, err := ParseHeapInfo(output)
	require.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestParseVersion(t *testing.T) {
	output := "OpenJDK 64-Bit Server VM version \"21.0.2+13\" (mixed mode, sharing)\nJDK 21.0.2\n"
	v, err := ParseVersion(output)
	require.NoError(t, err)
	assert.Equal(t, "21.0.2+13", v.Version)
	assert.Equal(t, "21.0.2", v.FamilyVersion)
}

func TestParseVMFlags_DetectsCollectorAndHeapSizes(t *testing.T) {
	output := "-XX:+UseG1GC -XX:MaxHeapSize=536870912 -Xmx512m -Xms256m\n"
	flags, err := ParseVMFlags(output)
	require.NoError(t, err)
	assert.Equal(t, CollectorG1, flags.Collector)
	assert.Equal(t, uint64(512*1024), flags.MaxHeapKiB)
	assert.Equal(t, uint64(256*1024), flags.InitialHeapKiB)
}

func TestParseThreadDump_HeaderAndStack(t *testing.T) {
	output := "2026-08-06 12:00:00\n" +
		"Full thread dump OpenJDK 64-Bit Server VM (21.0.2+13 mixed mode):\n\n" +
		"\"main\" #1 prio=5 os_prio=0 cpu=12.34ms elapsed=5.67s tid=0x1 nid=0x2 runnable\n" +
		"   java.lang.Thread.State: RUNNABLE\n" +
		"\tat com.example.App.main(App.java:10)\n"

	dump, err := ParseThreadDump(output)
	require.NoError(t, err)
	require.Len(t, dump.Threads, 1)

	th := dump.Threads[0]
	assert.Equal(t, "main", th.Name)
	assert.Equal(t, uint64(1), th.ID)
	assert.False(t, th.Daemon)
	assert.Equal(t, ThreadRunnable, th.State)
	assert.True(t, th.HasCPU)
	assert.InDelta(t, 12.34, th.CPUMillis, 1e-9)
	require.Len(t, th.Stack, 1)
	assert.Equal(t, "com.example.App", th.Stack[0].ClassName)
	assert.Equal(t, "main", th.Stack[0].MethodName)
	assert.Equal(t, 10, th.Stack[0].LineNumber)
}
