/*
Package mountain measures the “memory mountain” of the machine it runs on: the
read bandwidth achieved across a two-dimensional grid of working-set sizes and
strides. The contours of this mountain reveal the cache sizes, and the cliffs
between cache levels and main memory.

# Measuring

A measurement reads from a single [Buffer] that is allocated and initialized
once, before any timing. For each (size, stride) cell, the [Buffer.Traverse]
kernel reads every stride-th element of the first size bytes, never writing
to the buffer. The kernel returns the sum of the elements it read, which the
[Timer] accumulates, so the compiler cannot drop the reads.

The [Timer] uses the K-best method: after an untimed warm-up run, it times
up to [DefaultMaxTrials] trials and keeps the smallest samples. The minimum
is taken as the true cost, because noise from interrupts, scheduling, or
thermal throttling only ever makes trials slower, never faster. Measuring
stops as soon as the K smallest samples agree within [DefaultEpsilon]; if they
never do, the minimum is returned anyway, flagged as not converged.

[Bandwidth] then turns the cycles into MB/s, crediting a traversal with only
the bytes of the elements it touched, that is, size/stride.

# Counters

Trials are timed using a [Counter]. On amd64 CPUs with RDTSCP,
[TSCCounter] reads the time-stamp counter; elsewhere [MonotonicCounter]
falls back to the monotonic clock in nanoseconds. [EstimateRate] relates a
counter's ticks to wall-clock time.

# Noise

Correct K-best measurements need the CPU to themselves. [PinToCPU] pins the
measuring goroutine to a single CPU, and a [NoiseProbe] counts the
interrupts delivered to this CPU while measuring a cell, reading the per-CPU
counters from “/proc/interrupts” outside the timed trials. The
“/proc/interrupts” format consists of a header line listing the online CPUs
as “CPU#” columns, followed by one line per interrupt source, starting with
either the IRQ number or an architecture-specific name (such as “LOC” for
local timer interrupts), a colon, and then the per-CPU counters.

The aggregate bandwidth experiment ([WithAggregate]) spreads traversals
across multiple workers. It answers a different question, namely how much
bandwidth all cores together achieve, and thus is never mixed with
single-thread measurements.

# Cache Topology

[AllCaches] reads the caches as published by the kernel in
“/sys/devices/system/cpu/cpu#/cache/index#/”, with pseudo files “level”,
“type”, “size”, “coherency_line_size”, “ways_of_associativity”, and
“shared_cpu_list”. [DistinctCaches] collapses the per-CPU view into the set of
physical caches. [CPUIDCaches] is the fallback where sysfs is unavailable.

[Table.Cliffs] and [EstimateCacheSize] locate the cache boundaries
empirically, so they can be checked against the published topology.
*/
package mountain
