package jitter

import (
	"github.com/jmbenlloch/go-hdf5"
)

type RunInfoHDF5 struct {
	run_number   int32
	stack_config int32
	n_events     int32
	n_accepted   int32
	n_clipped    int32
	n_noise      int32
}

type EventTimingHDF5 struct {
	evt_number int32
	channel    int32
	time       float64
	amplitude  float64
	valid      int32
	reason     int32
	verdict    int32
}

type PairVarianceHDF5 struct {
	channel_a int32
	channel_b int32
	n         int32
	used      int32
	mean      float64
	sigma     float64
	reliable  int32
	method    int32
}

type ChannelJitterHDF5 struct {
	channel   int32
	threshold float64
	variance  float64
	jitter    float64
	clamped   int32
	at_bound  int32
	failures  int32
}

type PairResidualHDF5 struct {
	channel_a int32
	channel_b int32
	measured  float64
	predicted float64
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	// create property list
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	plist.SetChunk([]uint{4096})

	// Set compression level
	if compression > 0 {
		plist.SetDeflate(compression)
	}

	// create the memory data type
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

// writeArrayToTable appends data after the first offset rows of the table.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, offset int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	rows := uint(offset)
	if err := dataset.Resize([]uint{rows + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	if err := filespace.SelectHyperslab([]uint{rows}, nil, []uint{length}, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}
