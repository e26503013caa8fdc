package main

import (
	"math"
	"strconv"
	"time"

	"minimap_go/internal/telemetry"
)

// Parâmetros do movimento simulado (milímetros, referencial do sensor)
const (
	pathRadius   = 1500.0
	pathDepth    = 2500.0
	pathPeriod   = 20 * time.Second
	maxDistanceC = 600 // centímetros
)

// staticReadings retorna as entidades que não mudam durante a simulação
func staticReadings(sensorID string) map[string]telemetry.Reading {
	readings := map[string]telemetry.Reading{
		telemetry.MaxDistance(sensorID):       {State: strconv.Itoa(maxDistanceC), Unit: "cm"},
		telemetry.InstallationAngle(sensorID): {State: "0", Unit: "°"},
	}

	// Zona 1 cobre a frente do sensor; as outras ficam sem valor
	zone := telemetry.Zone(sensorID, 1)
	readings[zone.BeginX] = mm(-pathRadius)
	readings[zone.BeginY] = mm(0)
	readings[zone.EndX] = mm(pathRadius)
	readings[zone.EndY] = mm(pathDepth + pathRadius)
	return readings
}

// targetReadings posiciona os alvos ativos no instante elapsed.
// Slots acima de active ficam em (0, 0), que o minimapa trata como inativo.
func targetReadings(sensorID string, active int, elapsed time.Duration) map[string]telemetry.Reading {
	readings := make(map[string]telemetry.Reading, telemetry.TargetSlots*2)
	for t := 1; t <= telemetry.TargetSlots; t++ {
		x, y := 0.0, 0.0
		if t <= active {
			x, y = targetPosition(t, elapsed)
		}
		readings[telemetry.TargetX(sensorID, t)] = mm(x)
		readings[telemetry.TargetY(sensorID, t)] = mm(y)
	}
	return readings
}

// targetPosition percorre uma elipse; cada alvo tem fase própria
func targetPosition(t int, elapsed time.Duration) (x, y float64) {
	phase := 2 * math.Pi * float64(t-1) / float64(telemetry.TargetSlots)
	angle := 2*math.Pi*elapsed.Seconds()/pathPeriod.Seconds() + phase
	return pathRadius * math.Sin(angle), pathDepth + pathRadius*math.Cos(angle)*0.6
}

func mm(v float64) telemetry.Reading {
	v = math.Round(v)
	if v == 0 {
		v = 0 // sem "-0"
	}
	return telemetry.Reading{State: strconv.FormatFloat(v, 'f', 0, 64), Unit: telemetry.UnitMillimeter}
}

func merge(dst, src map[string]telemetry.Reading) map[string]telemetry.Reading {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
