package beacon_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ss2beacon-go/internal/beacon"
)

func ExampleNormalize() {
	frame, err := beacon.Normalize("12 00 94 03", "")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("% x\n", frame)

	_, err = beacon.Normalize("1G 00", "")
	fmt.Println(errors.Is(err, beacon.ErrInvalidCharacter))

	_, err = beacon.Normalize("12 0", "")
	fmt.Println(errors.Is(err, beacon.ErrOddLength))
	// Output:
	// 12 00 94 03
	// true
	// true
}

func ExampleEmitRecord() {
	text := "Gator Nation Is Everywhere! From SwampSat II"
	frame := append([]byte(text), 0x00, 0x00)

	rec, err := beacon.DecodeHex(beacon.Format(frame, ":"), ":")
	if err != nil {
		fmt.Println(err)
		return
	}
	doc := beacon.EmitRecord(rec, time.Time{})
	data, _ := json.Marshal(doc[:3])
	fmt.Println(rec.Schema.Name)
	fmt.Println(string(data))
	// Output:
	// ack
	// {"msgtype":0,"messagenum":1,"messagetotal":1}
}

func ExampleImageAccumulator() {
	acc := beacon.NewImageAccumulator(beacon.PayloadRange{Offset: 1, Length: 2})
	for _, line := range []string{"00 ff d8", "01 ff e0", "02 ff d9"} {
		frame, err := beacon.Normalize(line, "")
		if err != nil {
			fmt.Println(err)
			return
		}
		if acc, err = acc.Append(frame); err != nil {
			fmt.Println(err)
			return
		}
	}
	fmt.Printf("% x\n", acc.Finalize())
	// Output:
	// ff d8 ff e0 ff d9
}
