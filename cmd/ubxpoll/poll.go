package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/gnss-gateway/internal/poller"
	"github.com/taoyao-code/gnss-gateway/internal/protocol/ubx"
	"github.com/taoyao-code/gnss-gateway/internal/push"
	"github.com/taoyao-code/gnss-gateway/internal/transport"
)

// 串口读超时，决定等待循环检查截止时间的粒度
const pollReadTimeout = 200 * time.Millisecond

func pollCmd() *cobra.Command {
	var (
		device   string
		baud     int
		message  string
		timeout  time.Duration
		count    int
		interval time.Duration
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Send a poll frame and print the decoded reply",
		Example: `  ubxpoll poll -d /dev/ttyUSB0
  ubxpoll poll -d /dev/ttyUSB0 -b 115200 -m sat -n 10 --interval 1s
  ubxpoll poll -d /dev/ttyUSB0 -m svinfo --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoll(device, baud, message, timeout, count, interval, asJSON)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "Serial device path, e.g. /dev/ttyUSB0")
	cmd.Flags().IntVarP(&baud, "baud", "b", 9600, "Baud rate")
	cmd.Flags().StringVarP(&message, "message", "m", "posllh", "Message to poll: posllh, svinfo or sat")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 2*time.Second, "How long to wait for each reply")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of polls, 0 keeps polling until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Delay between polls")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print replies as JSON, one object per line")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

// runPoll 打开串口，按次数发送轮询帧并打印应答
func runPoll(device string, baud int, message string, timeout time.Duration, count int, interval time.Duration, asJSON bool) error {
	key, ok := poller.MessageKey(message)
	if !ok {
		return fmt.Errorf("unknown message %q, want posllh, svinfo or sat", message)
	}

	port, err := transport.OpenSerial(device, baud, pollReadTimeout)
	if err != nil {
		return err
	}
	defer port.Close()

	// 只注册被轮询的消息和NAK，其余帧静默忽略
	// 处理器错误不会从 ProcessBytes 透出，用局部变量带出来。
	var (
		got      bool
		frameErr error
	)
	table := ubx.NewTable()
	table.Register(byte(key>>8), byte(key), func(_ context.Context, _ string, f *ubx.Frame) error {
		got = true
		frameErr = printFrame(f, asJSON)
		return frameErr
	})
	table.Register(ubx.ClassAck, ubx.IDAckNak, func(_ context.Context, _ string, f *ubx.Frame) error {
		got = true
		var class, id byte
		if len(f.Payload) == 2 {
			class, id = f.Payload[0], f.Payload[1]
		}
		if asJSON {
			return printJSON(map[string]interface{}{"message": "nak", "class": class, "id": id})
		}
		fmt.Printf("NAK for class=0x%02X id=0x%02X\n", class, id)
		return nil
	})

	adapter := ubx.NewAdapter(table, ubx.DefaultNames(), ubx.MaxPayloadLen, zap.NewNop())
	req := ubx.EncodePoll(byte(key>>8), byte(key))

	ctx := context.Background()
	buf := make([]byte, 512)
	for i := 0; count <= 0 || i < count; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		if _, err := port.Write(req); err != nil {
			return fmt.Errorf("write poll frame: %w", err)
		}

		got = false
		frameErr = nil
		deadline := time.Now().Add(timeout)
		for !got && time.Now().Before(deadline) {
			n, err := port.Read(buf)
			if err != nil {
				return fmt.Errorf("read %s: %w", device, err)
			}
			if n == 0 {
				continue // 读超时，接着等
			}
			if _, err := adapter.ProcessBytes(ctx, device, buf[:n]); err != nil {
				return err
			}
		}
		if frameErr != nil {
			return fmt.Errorf("decode %s reply: %w", message, frameErr)
		}
		if !got {
			return fmt.Errorf("no reply for %s within %s", message, timeout)
		}
	}
	return nil
}

// fixOutput JSON输出复用外推事件的字段命名
type fixOutput struct {
	Message string `json:"message"`
	push.FixData
}

func printJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// printFrame 按消息类型打印解码结果
func printFrame(f *ubx.Frame, asJSON bool) error {
	switch {
	case f.Is(ubx.ClassNav, ubx.IDNavPosLLH):
		p, err := ubx.DecodeNavPosLLH(f.Payload)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(fixOutput{
				Message: "posllh",
				FixData: push.FixData{
					ITowMs:  p.ITowMs,
					LonDeg:  p.LonDeg(),
					LatDeg:  p.LatDeg(),
					HeightM: p.HeightM(),
					HMSLM:   p.HMSLM(),
					HAccM:   p.HAccM(),
					VAccM:   p.VAccM(),
				},
			})
		}
		fmt.Printf("NAV-POSLLH iTOW=%dms\n", p.ITowMs)
		fmt.Printf("  lon=%.7f lat=%.7f\n", p.LonDeg(), p.LatDeg())
		fmt.Printf("  height=%.3fm hMSL=%.3fm\n", p.HeightM(), p.HMSLM())
		fmt.Printf("  hAcc=%.3fm vAcc=%.3fm\n", p.HAccM(), p.VAccM())
	case f.Is(ubx.ClassNav, ubx.IDNavSvInfo):
		info, err := ubx.DecodeNavSvInfo(f.Payload)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(satellitesOutput("svinfo", info.ITowMs, svinfoEntries(info)))
		}
		fmt.Printf("NAV-SVINFO iTOW=%dms channels=%d\n", info.ITowMs, info.NumCh)
		for _, ch := range info.Channels {
			fmt.Printf("  %-8s sv=%3d cno=%2ddBHz elev=%3d azim=%4d\n",
				ch.Constellation(), ch.SvID, ch.CNO, ch.Elev, ch.Azim)
		}
	case f.Is(ubx.ClassNav, ubx.IDNavSat):
		sat, err := ubx.DecodeNavSat(f.Payload)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(satellitesOutput("sat", sat.ITowMs, satEntries(sat)))
		}
		fmt.Printf("NAV-SAT iTOW=%dms svs=%d\n", sat.ITowMs, sat.NumSvs)
		for _, sv := range sat.Svs {
			fmt.Printf("  %-8s sv=%3d cno=%2ddBHz elev=%3d azim=%4d\n",
				sv.Constellation(), sv.SvID, sv.CNO, sv.Elev, sv.Azim)
		}
	default:
		if asJSON {
			return printJSON(map[string]interface{}{
				"message": "unknown", "class": f.Class, "id": f.ID, "len": len(f.Payload),
			})
		}
		fmt.Printf("frame class=0x%02X id=0x%02X len=%d\n", f.Class, f.ID, len(f.Payload))
	}
	return nil
}

func satellitesOutput(message string, itow uint32, svs []push.SatEntry) *push.SatellitesData {
	return &push.SatellitesData{Message: message, ITowMs: itow, NumSvs: len(svs), Svs: svs}
}

func svinfoEntries(info *ubx.NavSvInfo) []push.SatEntry {
	out := make([]push.SatEntry, 0, len(info.Channels))
	for _, ch := range info.Channels {
		out = append(out, push.SatEntry{
			SvID:          int(ch.SvID),
			Constellation: ch.Constellation().String(),
			CNO:           int(ch.CNO),
			ElevDeg:       int(ch.Elev),
			AzimDeg:       int(ch.Azim),
		})
	}
	return out
}

func satEntries(sat *ubx.NavSat) []push.SatEntry {
	out := make([]push.SatEntry, 0, len(sat.Svs))
	for _, sv := range sat.Svs {
		out = append(out, push.SatEntry{
			SvID:          int(sv.SvID),
			Constellation: sv.Constellation().String(),
			CNO:           int(sv.CNO),
			ElevDeg:       int(sv.Elev),
			AzimDeg:       int(sv.Azim),
		})
	}
	return out
}
